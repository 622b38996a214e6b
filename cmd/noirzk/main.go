// noirzk 命令行工具：SRS准备、验证密钥、见证、证明与验证
package main

func main() {
	Execute()
}
