package main

import "github.com/Sternrassler/xmatters-sync/cmd/xmsync/cmd"

func main() {
	cmd.Execute()
}
