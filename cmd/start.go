package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/termacl/termacl/internal/core"
	"github.com/termacl/termacl/internal/server"
	"github.com/termacl/termacl/pkg/access"
	"github.com/termacl/termacl/pkg/database"
	"github.com/termacl/termacl/pkg/grant"
	"github.com/termacl/termacl/pkg/host"
	"github.com/termacl/termacl/pkg/permission"
	"github.com/termacl/termacl/pkg/term"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the termacl administration server.",
	Long:  ``,
	Run: func(cmd *cobra.Command, args []string) {
		log.Fatal(startServer())
	},
}

func init() {
	rootCmd.AddCommand(startCmd)

	startCmd.Flags().String("addr", ":8476", "listen address")
	viper.BindPFlag("server.addr", startCmd.Flags().Lookup("addr"))
}

func startServer() error {
	ctx := context.Background()

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}

	db, err := database.MySQLConnection()
	if err != nil {
		return err
	}

	//---------------------------------------------------------------------------
	// stores
	//---------------------------------------------------------------------------
	termStore, err := term.NewMySQLStore(db)
	if err != nil {
		return err
	}

	permStore, err := permission.NewMySQLStore(db)
	if err != nil {
		return err
	}

	grantStore, err := grant.NewMySQLStore(db)
	if err != nil {
		return err
	}

	//---------------------------------------------------------------------------
	// host adapters
	//---------------------------------------------------------------------------
	content, err := host.NewMySQLContent(db)
	if err != nil {
		return err
	}

	directory, err := host.NewMySQLDirectory(db)
	if err != nil {
		return err
	}

	identity := host.StaticIdentity{
		Principal: access.Principal{
			UserID: viper.GetInt64("principal.user_id"),
			Capabilities: map[string]bool{
				access.CapBypassAccess: viper.GetBool("principal.bypass"),
			},
		},
	}

	//---------------------------------------------------------------------------
	// managers
	//---------------------------------------------------------------------------
	terms, err := term.NewManager(termStore)
	if err != nil {
		return err
	}
	terms.SetLogger(logger)

	permissions, err := permission.NewManager(permStore, directory)
	if err != nil {
		return err
	}
	permissions.SetLogger(logger)

	checker, err := access.NewChecker(permissions, terms, content, access.Config{
		InheritAncestors: viper.GetBool("access.inherit_ancestors"),
	})
	if err != nil {
		return err
	}
	checker.SetLogger(logger)

	grants, err := grant.NewMaintainer(grantStore, permissions, content, checker, grant.Config{
		GrantUpdate: viper.GetBool("grants.update"),
		GrantDelete: viper.GetBool("grants.delete"),
	})
	if err != nil {
		return err
	}
	grants.SetLogger(logger)

	//---------------------------------------------------------------------------
	// core
	//---------------------------------------------------------------------------
	c, err := core.New(
		permissions,
		terms,
		checker,
		grants,
		identity,
		content,
		host.LogInvalidator{Logger: logger},
		host.LogObserver{Logger: logger},
	)
	if err != nil {
		return err
	}
	c.SetLogger(logger)

	return server.Run(ctx, c, viper.GetString("server.addr"))
}
