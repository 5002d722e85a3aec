// Command kvgraph manages typed elements stored in a key-value backend.
package main

import "github.com/mesh-intelligence/kvgraph/internal/cli"

func main() {
	cli.Execute()
}
