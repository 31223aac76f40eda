package cmd

import (
	"GiftFM/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动 GiftFM 服务器",
	Long:  `启动 GiftFM 的 HTTP/WebSocket 服务器，对接直播礼物事件并向播放页推送音频指令`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
