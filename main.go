package main

import "github.com/ValentinKolb/kvRelay/cmd"

func main() {
	cmd.Execute()
}
