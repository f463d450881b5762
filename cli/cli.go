package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/shenulal/telematics-io-manager/config"
	"github.com/shenulal/telematics-io-manager/core/auth"
	"github.com/shenulal/telematics-io-manager/core/bootstrap"
	"github.com/shenulal/telematics-io-manager/core/store"
	"github.com/shenulal/telematics-io-manager/core/utils"
)

// Run dispatches the management subcommands. args excludes the program name.
func Run(args []string) {
	if len(args) < 1 {
		fmt.Println("commands: create-user")
		return
	}

	createUserCmd := flag.NewFlagSet("create-user", flag.ExitOnError)
	username := createUserCmd.String("u", "", "username")
	email := createUserCmd.String("e", "", "email")
	password := createUserCmd.String("p", "", "password")
	roles := createUserCmd.String("r", "admin", "comma separated roles")

	switch args[0] {
	case "create-user":
		_ = createUserCmd.Parse(args[1:])
		cfg, err := config.Load()
		if err != nil {
			fmt.Println("config:", err)
			return
		}
		logger := utils.NewLogger()
		db, err := store.NewDB(cfg, logger)
		if err != nil {
			logger.Fatalf("db: %v", err)
		}
		defer db.Close()
		if err := store.ApplyMigrations(context.Background(), db, logger); err != nil {
			logger.Fatalf("migrations: %v", err)
		}
		if err := bootstrap.EnsurePermissionCatalog(context.Background(), store.NewPermissionsStore(db)); err != nil {
			logger.Fatalf("permission catalog: %v", err)
		}
		if err := bootstrap.EnsureBuiltInRoles(context.Background(), store.NewRolesStore(db)); err != nil {
			logger.Fatalf("built-in roles: %v", err)
		}
		if *username == "" || *password == "" {
			logger.Fatalf("create-user requires -u and -p")
		}
		mail := *email
		if mail == "" {
			mail = *username + "@localhost"
		}
		us := store.NewUsersStore(db)
		ph := auth.MustHashPassword(*password, cfg.Pepper)
		user := &store.User{
			Username:     *username,
			Email:        mail,
			PasswordHash: ph.Hash,
			Salt:         ph.Salt,
			Active:       true,
		}
		if _, err := us.Create(context.Background(), user, splitRoles(*roles)); err != nil {
			logger.Fatalf("create: %v", err)
		}
		fmt.Println("user created")
	default:
		fmt.Println("unknown command")
	}
}

func splitRoles(r string) []string {
	var res []string
	for _, part := range strings.Split(r, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			res = append(res, part)
		}
	}
	return res
}
