package app

import (
	"fmt"
	"strings"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	CommandServe   Command = "serve"
	CommandWorker  Command = "worker"
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はdistroless環境でのDockerヘルスチェック用。設定の読み込みを行わない。
	CommandHealthcheck Command = "healthcheck"
	// CommandCountdown は次に終了するリーダーボードまでの残り時間を端末に表示する。
	CommandCountdown Command = "countdown"
)

// commands はサポートするサブコマンドと説明。Usageはこの順で表示する。
var commands = []struct {
	cmd     Command
	summary string
}{
	{CommandServe, "start the HTTP API server (default)"},
	{CommandWorker, "run GitHub sync and session cleanup jobs"},
	{CommandMigrate, "apply pending database migrations"},
	{CommandCountdown, "print time left until the next leaderboard ends"},
	{CommandHealthcheck, "probe the local server's /health endpoint"},
}

// ParseCommand はコマンドライン引数の先頭からサブコマンドを解析する。
// 引数が空の場合はCommandServeを返し、未知のコマンドはエラーにする。
func ParseCommand(args []string) (Command, error) {
	if len(args) == 0 {
		return CommandServe, nil
	}
	for _, c := range commands {
		if string(c.cmd) == args[0] {
			return c.cmd, nil
		}
	}
	return "", fmt.Errorf("unknown command %q\n%s", args[0], Usage())
}

// Usage はサブコマンドの一覧を返す。
func Usage() string {
	var b strings.Builder
	b.WriteString("usage: prboard <command>\n\ncommands:\n")
	for _, c := range commands {
		fmt.Fprintf(&b, "  %-12s %s\n", c.cmd, c.summary)
	}
	return b.String()
}
