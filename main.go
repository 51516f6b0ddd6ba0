package main

import "github.com/melih-ucgun/xal/cmd"

func main() {
	cmd.Main()
}
