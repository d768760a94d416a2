package main

import "lending-library/internal/app"

func main() {
	app.Execute()
}
