package main

import "github.com/shengyf2/sqliteredis/cmd"

func main() {
	cmd.Execute()
}
