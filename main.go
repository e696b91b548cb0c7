// @title           Inter-Ministry Exchange API
// @version         1.0
// @description     Data request workflow between ministries

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token from /auth/login
package main

import "github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/cmd"

func main() {
	cmd.Execute()
}
