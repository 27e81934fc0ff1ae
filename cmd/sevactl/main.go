package main

import "github.com/sevasetu/backoffice/cmd/sevactl/cmd"

func main() {
	cmd.Execute()
}
