package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/feng-zhe/zhechord/internal/bootstrap"
	"github.com/feng-zhe/zhechord/internal/ring"
	"github.com/feng-zhe/zhechord/internal/transport"
)

// chordctl is the operator REPL: it speaks the node's HTTP+JSON RPC surface
// against one node at a time, and routes put/get itself by hashing the key
// and resolving its owner through /find_successor — the node-side store is
// a plain local map and expects the caller to have routed already.
func main() {
	// CLI flags
	addr := flag.String("addr", "localhost:8000", "address of a ring node")
	bits := flag.Int("bits", 160, "ring identifier width in bits (must match the ring's RING_SIZE_BIT)")
	timeout := flag.Duration("timeout", 10*time.Second, "request timeout")
	flag.Parse()

	space, err := ring.NewSpace(*bits, 1)
	if err != nil {
		fmt.Printf("invalid -bits: %v\n", err)
		return
	}

	fmt.Printf("zhechord interactive client. Connected to %s (%d-bit ring)\n", *addr, *bits)
	fmt.Println("Available commands: put/get/owner/finger/data/backups/use/help/exit")
	fmt.Println("")

	// Setup liner shell
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	client := &http.Client{
		Timeout: *timeout,
	}
	currentAddr := *addr

	for {
		input, err := line.Prompt(fmt.Sprintf("chord[%s]> ", currentAddr))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				fmt.Println("Aborted")
				continue
			}
			break
		}
		line.AppendHistory(input)

		args := strings.Fields(strings.TrimSpace(input))
		if len(args) == 0 {
			continue
		}
		cmd := args[0]

		switch cmd {

		case "put":
			if len(args) < 3 {
				fmt.Println("Usage: put <key> <value>")
				continue
			}
			key, value := args[1], strings.Join(args[2:], " ")

			ownerAddr, ownerID, err := resolveOwner(client, space, currentAddr, key)
			if err != nil {
				fmt.Printf("Failed to locate owner of %q: %v\n", key, err)
				continue
			}
			if err := post(client, ownerAddr, transport.PathPut,
				transport.PutRequest{Key: key, Value: value}, nil); err != nil {
				fmt.Printf("Put failed on %s: %v\n", ownerAddr, err)
				continue
			}
			fmt.Printf("Stored on node %s (%s)\n", ownerID, ownerAddr)

		case "get":
			if len(args) < 2 {
				fmt.Println("Usage: get <key>")
				continue
			}
			key := args[1]

			ownerAddr, ownerID, err := resolveOwner(client, space, currentAddr, key)
			if err != nil {
				fmt.Printf("Failed to locate owner of %q: %v\n", key, err)
				continue
			}
			var resp transport.GetResponse
			if err := post(client, ownerAddr, transport.PathGet,
				transport.GetRequest{Key: key}, &resp); err != nil {
				fmt.Printf("Get failed on %s: %v\n", ownerAddr, err)
				continue
			}
			fmt.Printf("%q (from node %s)\n", resp.Value, ownerID)

		case "owner":
			if len(args) < 2 {
				fmt.Println("Usage: owner <key>")
				continue
			}
			key := args[1]
			hash := space.Hex(space.HashName(key))
			ownerAddr, ownerID, err := resolveOwner(client, space, currentAddr, key)
			if err != nil {
				fmt.Printf("Failed to locate owner of %q: %v\n", key, err)
				continue
			}
			fmt.Printf("hash(%s) = %s -> node %s (%s)\n", key, hash, ownerID, ownerAddr)

		case "finger", "ft":
			var resp transport.ListResponse
			if err := post(client, currentAddr, transport.PathDisplayFingerTable, struct{}{}, &resp); err != nil {
				fmt.Printf("Request failed: %v\n", err)
				continue
			}
			if len(resp.Result) == 0 {
				fmt.Println("(empty)")
				continue
			}
			pred := resp.Result[0]
			if pred == "" {
				pred = "(none)"
			}
			fmt.Printf("predecessor: %s\n", pred)
			for i, node := range resp.Result[1:] {
				fmt.Printf("finger[%d]: %s\n", i+1, node)
			}

		case "data":
			var resp transport.MapResponse
			if err := post(client, currentAddr, transport.PathDisplayData, struct{}{}, &resp); err != nil {
				fmt.Printf("Request failed: %v\n", err)
				continue
			}
			if len(resp.Result) == 0 {
				fmt.Println("(no local data)")
				continue
			}
			pretty, _ := json.MarshalIndent(resp.Result, "", "  ")
			fmt.Println(string(pretty))

		case "backups", "backup":
			var resp transport.ListResponse
			if err := post(client, currentAddr, transport.PathDisplayBackupSucc, struct{}{}, &resp); err != nil {
				fmt.Printf("Request failed: %v\n", err)
				continue
			}
			for i, id := range resp.Result {
				fmt.Printf("backup[%d]: %s\n", i, id)
			}

		case "use", "connect":
			if len(args) < 2 {
				fmt.Println("Usage: use <addr>")
				fmt.Println("Example: use localhost:8001")
				continue
			}
			newAddr := strings.TrimPrefix(args[1], "http://")

			// Test connection
			var resp transport.IDResponse
			if err := post(client, newAddr, transport.PathGetSuccessor, struct{}{}, &resp); err != nil {
				fmt.Printf("Failed to connect to %s: %v\n", newAddr, err)
				continue
			}
			currentAddr = newAddr
			fmt.Printf("Switched to %s (successor %s)\n", currentAddr, resp.ID)

		case "help", "?":
			fmt.Println("Available commands:")
			fmt.Println("  put <key> <value> - store a value on the node that owns the key")
			fmt.Println("  get <key>         - fetch a value from the node that owns the key")
			fmt.Println("  owner <key>       - show which node owns a key, without touching it")
			fmt.Println("  finger            - show the connected node's predecessor and finger table")
			fmt.Println("  data              - show the connected node's local key/value data")
			fmt.Println("  backups           - show the connected node's backup successor list")
			fmt.Println("  use <addr>        - switch to a different node")
			fmt.Println("  help              - show this help")
			fmt.Println("  exit              - exit client")

		case "exit", "quit", "q":
			fmt.Println("Bye!")
			return

		default:
			fmt.Printf("Unknown command: %s\n", cmd)
			fmt.Println("Type 'help' for available commands")
		}
	}
}

// resolveOwner hashes key into the ring, asks the connected node for the
// hash's successor, and derives the owner's dialable address from its
// identifier under the container naming convention.
func resolveOwner(client *http.Client, space ring.Space, via, key string) (addr, id string, err error) {
	h := space.HashName(key)
	var resp transport.IDResponse
	if err := post(client, via, transport.PathFindSuccessor,
		transport.IDRequest{ID: space.Hex(h)}, &resp); err != nil {
		return "", "", err
	}
	ownerID, err := space.FromHexString(resp.ID)
	if err != nil {
		return "", "", fmt.Errorf("malformed owner id %q: %w", resp.ID, err)
	}
	return bootstrap.ContainerAddr(space, ownerID), space.Hex(ownerID), nil
}

func post(client *http.Client, addr, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := client.Post("http://"+addr+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}
