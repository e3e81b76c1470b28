// simulate 以合成负载在内存中驱动叫号排序与服务点分配，输出 YAML 报告。
//
//	simulate run --workload workload.yaml [--seed N]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "simulate",
	Short:         "排队调度仿真工具",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(newRunCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "仿真失败: %v\n", err)
		os.Exit(1)
	}
}
