package main

import "github.com/Siddhant-K-code/minelab/cmd"

func main() {
	cmd.Execute()
}
