package main

import "github.com/khanhnv2901/cipher-sentinel/cmd"

var execCmd = cmd.Execute

func main() {
	execCmd()
}
