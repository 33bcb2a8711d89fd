package main

import "github.com/param2610-cloud/branch-specific-it-asset-management-lite/cmd"

func main() {
	cmd.Execute()
}
