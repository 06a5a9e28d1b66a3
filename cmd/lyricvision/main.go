package main

import "github.com/KiwiSingh/LyricVision/internal/cli"

func main() { cli.Main() }
