package main

import "github.com/NamanBalaji/updater/cmd"

func main() {
	cmd.Execute()
}
