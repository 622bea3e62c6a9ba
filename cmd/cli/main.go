// Small operator client for the dispatch endpoints.
//
//	cli create-group <regionId>
//	cli pusher [regionId]
//	cli worker <regionId> <workerId>
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
)

func main() {
	api := os.Getenv("API_BASE")
	if api == "" {
		api = "http://localhost:8080"
	}
	key := os.Getenv("API_KEY")

	if len(os.Args) < 2 {
		usage()
		return
	}

	var path string
	var body map[string]string
	switch os.Args[1] {
	case "create-group":
		if len(os.Args) != 3 {
			usage()
			return
		}
		path = "/redis/create-group/" + os.Args[2]
	case "pusher":
		path = "/trigger-pusher"
		if len(os.Args) == 3 {
			body = map[string]string{"regionId": os.Args[2]}
		}
	case "worker":
		if len(os.Args) != 4 {
			usage()
			return
		}
		path = "/trigger-worker"
		body = map[string]string{"regionId": os.Args[2], "workerId": os.Args[3]}
	default:
		usage()
		return
	}

	payload, _ := json.Marshal(body)
	req, err := http.NewRequest(http.MethodPost, api+path, bytes.NewReader(payload))
	if err != nil {
		fmt.Println("Bad request:", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Println("Error contacting API:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	out, _ := io.ReadAll(resp.Body)
	fmt.Println(resp.Status)
	fmt.Println(string(out))
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: cli create-group <regionId> | pusher [regionId] | worker <regionId> <workerId>")
	os.Exit(2)
}
