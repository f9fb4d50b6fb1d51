package main

import "github.com/Vishalytig/shortsbot/internal/cli"

func main() { cli.Main() }
