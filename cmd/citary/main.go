// Command citary はクリニック向け認証・ロール管理APIを起動する。
//
//	citary [serve|worker|migrate [up|down]|healthcheck]
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/citary/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
