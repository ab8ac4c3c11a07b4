package main

import (
	"os"

	"bulk_mail_client/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
