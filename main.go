package main

import "github.com/example/lingua/cmd"

func main() {
	cmd.Execute()
}
