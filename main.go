package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"gitee.com/czyczk/fabric-netadmin/internal/appinit"
	"gitee.com/czyczk/fabric-netadmin/internal/controller"
	"gitee.com/czyczk/fabric-netadmin/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/hyperledger/fabric-sdk-go/pkg/fabsdk"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"go.uber.org/atomic"
)

func main() {
	var configPath, sdkConfigPath, initConfigPath string
	var orgName, orgSecret string

	confFlag := func(defaultValue string, dest *string) *cli.StringFlag {
		return &cli.StringFlag{
			Name:        "conf",
			Aliases:     []string{"c"},
			Value:       defaultValue,
			EnvVars:     []string{"FNA_CONF"},
			Destination: dest,
		}
	}
	sdkConfFlag := &cli.StringFlag{
		Name:        "sdkconf",
		Aliases:     []string{"s"},
		Value:       "config-network.yaml",
		EnvVars:     []string{"FNA_SDK_CONF"},
		Destination: &sdkConfigPath,
	}

	app := &cli.App{
		Name:  "fabric-netadmin",
		Usage: "REST façade for administering a Fabric network",
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"s"},
				Usage:   "Start as server",
				Flags:   []cli.Flag{confFlag("server.yaml", &configPath), sdkConfFlag},
				Action:  getServeFunc(&configPath, &sdkConfigPath),
			},
			{
				Name:    "init",
				Aliases: []string{"i"},
				Usage:   "Create and join channels, install and instantiate chaincodes",
				Flags: []cli.Flag{
					confFlag("server.yaml", &configPath),
					sdkConfFlag,
					&cli.StringFlag{
						Name:        "initconf",
						Value:       "init.yaml",
						EnvVars:     []string{"FNA_INIT_CONF"},
						Destination: &initConfigPath,
					},
				},
				Action: getInitFunc(&configPath, &sdkConfigPath, &initConfigPath),
			},
			{
				Name:  "signup",
				Usage: "Sign up a new organization to the consortium",
				Flags: []cli.Flag{
					confFlag("server.yaml", &configPath),
					sdkConfFlag,
					&cli.StringFlag{Name: "name", Required: true, Destination: &orgName},
					&cli.StringFlag{Name: "secret", Required: true, Destination: &orgSecret},
				},
				Action: getSignupFunc(&configPath, &sdkConfigPath, &orgName, &orgSecret),
			},
		},
	}

	// Run the cli helper
	if err := app.Run(os.Args); err != nil {
		log.Fatalln(err)
	}
}

// setup loads the server info and builds the services on a fresh SDK instance. The caller closes the SDK.
func setup(configPath, sdkConfigPath string) (*appinit.ServerInfo, *fabsdk.FabricSDK, *appinit.Services, error) {
	serverInfo, err := appinit.LoadServerInfo(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	if err = appinit.SetupLogger(serverInfo.LogLevel, serverInfo.ShowTimingLogs); err != nil {
		return nil, nil, nil, err
	}

	sdk, network, err := appinit.SetupSDK(sdkConfigPath)
	if err != nil {
		return nil, nil, nil, err
	}

	info, err := appinit.NewServiceInfo(&serverInfo, sdk, network)
	if err != nil {
		sdk.Close()
		return nil, nil, nil, err
	}

	recorder, err := appinit.NewSignupRecorder(serverInfo.Database)
	if err != nil {
		sdk.Close()
		return nil, nil, nil, err
	}

	return &serverInfo, sdk, appinit.NewServices(info, recorder), nil
}

func getInitFunc(configPath, sdkConfigPath, initConfigPath *string) func(c *cli.Context) error {
	// The func for subcommand "init"
	return func(c *cli.Context) error {
		_, sdk, services, err := setup(*configPath, *sdkConfigPath)
		if err != nil {
			return err
		}
		defer sdk.Close()

		// Load init info from `init.yaml`
		initInfo, err := appinit.LoadInitInfo(*initConfigPath)
		if err != nil {
			return err
		}

		return appinit.InitApp(c.Context, &initInfo, services.Network)
	}
}

func getSignupFunc(configPath, sdkConfigPath, orgName, orgSecret *string) func(c *cli.Context) error {
	return func(c *cli.Context) error {
		_, sdk, services, err := setup(*configPath, *sdkConfigPath)
		if err != nil {
			return err
		}
		defer sdk.Close()

		record, err := services.Org.SignupOrg(c.Context, &service.OrgSignup{OrgName: *orgName, Secret: *orgSecret})
		if err != nil {
			return err
		}

		recordJSON, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			return errors.Wrap(err, "无法序列化加入流程记录")
		}
		fmt.Println(string(recordJSON))

		return nil
	}
}

func getServeFunc(configPath, sdkConfigPath *string) func(c *cli.Context) error {
	return func(c *cli.Context) error {
		serverInfo, sdk, services, err := setup(*configPath, *sdkConfigPath)
		if err != nil {
			return err
		}
		defer sdk.Close()

		ready := atomic.NewBool(false)

		// Instantiate controllers
		controllers := []controller.Controller{
			&controller.HealthController{Ready: ready},
			&controller.NetworkController{
				NetworkSvc: services.Network,
				Chaincode:  serverInfo.Network.Chaincode,
			},
			&controller.IdentityController{IdentitySvc: services.Identity},
			&controller.OrgController{OrgSvc: services.Org},
		}

		// Register controller handlers
		router := gin.Default()
		apiv1Group := router.Group("/api/v1")
		for _, ctrl := range controllers {
			if err := controller.RegisterHandlers(apiv1Group, ctrl); err != nil {
				return err
			}
		}

		// Start the HTTP server
		httpServer := &http.Server{
			Addr:    fmt.Sprintf(":%v", serverInfo.Port),
			Handler: router,
		}

		chanError := make(chan error, 1)
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				chanError <- errors.Wrap(err, "无法启动 HTTP 服务器")
			}
		}()
		ready.Store(true)
		log.Infof("HTTP 服务器已在端口 %v 上启动", serverInfo.Port)

		// Listen Ctrl+C signals. On receiving a signal stops the app elegantly
		chanQuit := make(chan os.Signal, 1)
		signal.Notify(chanQuit, os.Interrupt)
		select {
		case err := <-chanError:
			return err
		case <-chanQuit:
			log.Infoln("收到 Ctrl+C 信号，正在退出程序...")
			ready.Store(false)

			// Stop the HTTP server elegantly
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			log.Infoln("正在停止 HTTP 服务器...")
			if err := httpServer.Shutdown(ctx); err != nil {
				return errors.Wrap(err, "无法正常停止 HTTP 服务器")
			}
		}

		return nil
	}
}
