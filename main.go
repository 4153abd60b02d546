package main

import "github.com/nextlevelbuilder/tgwatch/cmd"

func main() {
	cmd.Execute()
}
