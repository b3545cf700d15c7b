package app

import (
	"fmt"
	"strings"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーとして起動する。引数なしの場合の既定。
	CommandServe Command = "serve"
	// CommandWorker は期限切れ確認トークンの定期掃除を行う。
	CommandWorker Command = "worker"
	// CommandMigrate はスキーマを up / down する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は起動中のサーバーの/healthを叩く。
	// distrolessイメージにはcurlがないため、Dockerのヘルスチェックから使う。
	CommandHealthcheck Command = "healthcheck"
)

var commands = []Command{CommandServe, CommandWorker, CommandMigrate, CommandHealthcheck}

// MigrateDirection はマイグレーションの方向。
type MigrateDirection string

const (
	MigrateUp   MigrateDirection = "up"
	MigrateDown MigrateDirection = "down"
)

// Invocation はコマンドライン引数の解析結果。
type Invocation struct {
	Command Command
	// Direction はCommandMigrateのときのみ意味を持つ。
	Direction MigrateDirection
}

// ParseArgs はos.Args[1:]を解析する。
// 未知のサブコマンドやマイグレーション方向はエラーを返す。
func ParseArgs(args []string) (Invocation, error) {
	if len(args) == 0 {
		return Invocation{Command: CommandServe}, nil
	}

	cmd := Command(args[0])
	switch cmd {
	case CommandServe, CommandWorker, CommandHealthcheck:
		return Invocation{Command: cmd}, nil
	case CommandMigrate:
		dir := MigrateUp
		if len(args) > 1 {
			dir = MigrateDirection(args[1])
		}
		if dir != MigrateUp && dir != MigrateDown {
			return Invocation{}, fmt.Errorf("unknown migrate direction %q (want up or down)", dir)
		}
		return Invocation{Command: cmd, Direction: dir}, nil
	default:
		names := make([]string, len(commands))
		for i, c := range commands {
			names[i] = string(c)
		}
		return Invocation{}, fmt.Errorf("unknown command %q (want one of %s)", args[0], strings.Join(names, ", "))
	}
}
