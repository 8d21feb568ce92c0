// Command hashpw 生成管理员密码的 bcrypt 哈希，用于 admin.password_hash。
package main

import (
	"fmt"
	"os"

	"whispr-go/pkg/hash"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: hashpw <password>")
		os.Exit(2)
	}
	h, err := hash.HashPassword(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash password: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(h)
}
