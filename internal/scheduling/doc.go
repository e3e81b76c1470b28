// Package scheduling 叫号顺序计算核心。
//
// ScheduleOrder 是纯函数：输入切片不会被修改，评估时刻 now 作为显式参数传入，
// 相同输入必然得到相同输出。算法由调用方在调用时传入，包内不持有任何全局配置。
// 配置异常（未知算法、未知类型、无映射的能力过滤器）一律降级为文档约定的默认行为，
// 并以 Warning 形式返回，不会返回错误。
package scheduling
