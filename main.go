package main

import "github.com/Yates-Labs/survivalbot/cmd"

func main() {
	cmd.Execute()
}
