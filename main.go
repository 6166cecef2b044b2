package main

import (
	"log"
	"os"

	"rincewind/logger"
	"rincewind/server"
	"rincewind/utils"
)

type OptsDesc struct {
	prmsCnt int
	handler func(p []string) error
}

func init() {
	logger.SetOut(os.Stdout)
	logger.SetLevel("debug")
}

//Main function runs the Rincewind server. The following options are available:
// -a - address to use. Default value is empty.
// -p - port to use. Default value is 8000.
// -r - path root to use. Default value is "/rincewind".
func main() {
	appConfig := utils.GetConfig()
	var srv = server.New(appConfig.Addr, appConfig.Port, appConfig.UrlPrefix, appConfig.DbConnectionUrl)

	//apply command-line-specified options if there are some
	var opts = map[string]OptsDesc{
		"-a": {1, func(p []string) error {
			srv.SetAddr(p[0])
			return nil
		}},
		"-p": {1, func(p []string) error {
			srv.SetPort(p[0])
			return nil
		}},
		"-r": {1, func(p []string) error {
			srv.SetRoot(p[0])
			return nil
		}},
	}

	args := os.Args[1:]
	for len(args) > 0 {
		if v, e := opts[args[0]]; e && len(args)-1 >= v.prmsCnt {
			if err := v.handler(args[1 : v.prmsCnt+1]); err != nil {
				log.Fatalln(err)
				os.Exit(127)
			}
			args = args[1+v.prmsCnt:]
		} else {
			log.Fatalf("Wrong argument '%s'", args[0])
			os.Exit(127)
		}
	}

	log.Println("Rincewind server started.")
	srv.Setup(appConfig).ListenAndServe()
}
