package main

import "github.com/tiancizhuang/apiserver/cmd"

func main() {
	cmd.Execute()
}
