// Package main 启动应用程序
package main

import "github.com/yeisme/imagevault/pkg/cmd"

//	@title			ImageVault API
//	@version		1.0
//	@description	ImageVault 是一个图片资产摄取与变体生成服务，提供预签名上传、上传确认、资源绑定和异步缩略图生成等功能。

//	@license.name	MIT
//	@license.url	https://opensource.org/license/mit/

func main() {
	if err := cmd.Execute(); err != nil {
		panic(err)
	}
}
