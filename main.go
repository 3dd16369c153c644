// The main package for the ocean-news executable.
package main

import "github.com/JakeFAU/ocean-news/cmd"

func main() {
	cmd.Execute()
}
