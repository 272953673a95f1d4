package main

import "github.com/upsift/upsift/cmd/upsift"

func main() { upsift.Execute() }
