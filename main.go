package main

import "github/chapool/yield-vault/cmd"

func main() {
	cmd.Execute()
}
