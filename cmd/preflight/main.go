// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	"strings"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	keys := strings.TrimSpace(os.Getenv("API_KEYS"))
	addr := strings.TrimSpace(os.Getenv("ADDR"))
	db := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	redisURL := strings.TrimSpace(os.Getenv("REDIS_URL"))
	pushRegion := strings.TrimSpace(os.Getenv("PUSH_REGION_ID"))

	if keys == "" {
		warn("API_KEYS empty — API runs in dev mode, every request is caller \"dev\".")
	} else {
		for _, pair := range strings.Split(keys, ",") {
			if !strings.Contains(pair, "=") {
				fail("API_KEYS entry " + pair + " is not key=caller; use key1=alice,key2=bob")
			}
		}
		if strings.Contains(keys, " ") {
			warn("API_KEYS contains spaces; use comma-separated with no spaces")
		}
		ok("API_KEYS present")
	}

	if addr == "" {
		warn("ADDR is empty; default in your app may be used.")
	} else {
		ok("ADDR=" + addr)
	}

	if db == "" {
		warn("DATABASE_URL empty — API will use the in-memory catalog unless overridden at runtime.")
	} else {
		ok("DATABASE_URL present")
	}

	if redisURL == "" {
		warn("REDIS_URL empty — queue state lives in-process and is lost on restart.")
	} else {
		ok("REDIS_URL present")
	}

	if pushRegion == "" {
		warn("PUSH_REGION_ID empty — /trigger-pusher requires a regionId in the request body.")
	} else {
		ok("PUSH_REGION_ID=" + pushRegion)
	}

	ok("preflight passed")
}
