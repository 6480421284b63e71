// artpoll discovers Art-Net nodes on the local network and prints them.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"shroomlight/lib/dmx"
)

func main() {
	broadcast := flag.String("broadcast", "255.255.255.255", "broadcast address")
	wait := flag.Duration("wait", 2*time.Second, "how long to collect replies")
	flag.Parse()

	fmt.Printf("Polling %s...\n", *broadcast)

	nodes, err := dmx.Poll(*broadcast, *wait)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if len(nodes) == 0 {
		fmt.Println("No nodes found.")
		return
	}
	for _, node := range nodes {
		fmt.Printf("  %-18s %s\n", node.Name, node.IP)
	}
}
