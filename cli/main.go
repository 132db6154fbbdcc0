package main

import "github.com/usedetail/securedrop-detail/cli/cmd"

func main() {
	cmd.Execute()
}
