package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"parkwarden"
	"parkwarden/internal/settings"
)

// This example embeds the parkwarden facade: store a configuration, start
// it, print the running instances, then run one monitor cycle.
func main() {
	st, err := settings.Load("")
	if err != nil {
		panic(err)
	}
	w, err := parkwarden.New(st)
	if err != nil {
		panic(err)
	}
	defer func() { _ = w.Close() }()

	cfg, err := w.Store.Get("alpine")
	if err != nil {
		panic(err)
	}
	inst, err := w.Supervisor.Start(cfg)
	if err != nil {
		panic(err)
	}
	fmt.Printf("started %s as pid %d\n", inst.ConfigName, inst.PID)

	insts, err := w.Supervisor.ListRunning()
	if err != nil {
		panic(err)
	}
	b, _ := json.MarshalIndent(insts, "", "  ")
	fmt.Println(string(b))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	w.Monitor().RunOnce(ctx)
}
