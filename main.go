package main

import "github.com/kastelo/treedb/cmd"

func main() {
	cmd.Execute()
}
