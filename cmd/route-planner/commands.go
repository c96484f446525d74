package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pribylovaa/route-planner/internal/models"
)

// passwordEnv - источник пароля, если флаг --password не задан.
const passwordEnv = "ROUTE_PLANNER_PASSWORD"

func (c *cli) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "route-planner",
		Short:         "Клиент планировщика туристических маршрутов",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd.Context())
		},
	}

	cmd.PersistentFlags().StringVar(&c.configPath, "config", "", "path to config file (overrides CONFIG_PATH env)")
	cmd.PersistentFlags().StringVarP(&c.output, "output", "o", outputJSON, "output format: json|yaml")

	cmd.AddCommand(
		c.loginCmd(),
		c.registerCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.profileCmd(),
		c.routesCmd(),
		c.attractionsCmd(),
		c.analyticsCmd(),
	)

	return cmd
}

func password(flag string) string {
	if flag != "" {
		return flag
	}

	return os.Getenv(passwordEnv)
}

func (c *cli) loginCmd() *cobra.Command {
	var email, pass string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Войти по email и паролю",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.sess.Login(cmd.Context(), email, password(pass)); err != nil {
				return err
			}

			c.printf("Вы вошли как %s\n", c.sess.Current().User.Username)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email")
	cmd.Flags().StringVar(&pass, "password", "", "password (or "+passwordEnv+")")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func (c *cli) registerCmd() *cobra.Command {
	var in models.RegisterInput

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Зарегистрироваться",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in.Password = password(in.Password)
			if in.Password2 == "" {
				in.Password2 = in.Password
			}

			if err := c.sess.Register(cmd.Context(), in); err != nil {
				return err
			}

			c.printf("Аккаунт %s создан\n", c.sess.Current().User.Username)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.Email, "email", "", "email")
	f.StringVar(&in.Username, "username", "", "username")
	f.StringVar(&in.Password, "password", "", "password (or "+passwordEnv+")")
	f.StringVar(&in.FirstName, "first-name", "", "first name")
	f.StringVar(&in.LastName, "last-name", "", "last name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Выйти и удалить сохранённые токены",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			c.sess.Logout()
			c.printf("Вы вышли\n")
			return nil
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Показать текущего пользователя",
		Args:  cobra.NoArgs,
		RunE: c.protected(func(*cobra.Command, []string) error {
			return c.print(c.sess.Current().User)
		}),
	}
}

func (c *cli) profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Профиль пользователя",
	}

	var first, last, phone, bio string

	update := &cobra.Command{
		Use:   "update",
		Short: "Изменить поля профиля",
		Args:  cobra.NoArgs,
		RunE: c.protected(func(cmd *cobra.Command, _ []string) error {
			var upd models.ProfileUpdate

			// отправляются только явно заданные флаги
			for name, dst := range map[string]**string{
				"first-name": &upd.FirstName,
				"last-name":  &upd.LastName,
				"phone":      &upd.Phone,
				"bio":        &upd.Bio,
			} {
				if !cmd.Flags().Changed(name) {
					continue
				}
				v, _ := cmd.Flags().GetString(name)
				*dst = &v
			}

			if err := c.sess.UpdateProfile(cmd.Context(), upd); err != nil {
				return err
			}

			return c.print(c.sess.Current().User)
		}),
	}

	f := update.Flags()
	f.StringVar(&first, "first-name", "", "first name")
	f.StringVar(&last, "last-name", "", "last name")
	f.StringVar(&phone, "phone", "", "phone")
	f.StringVar(&bio, "bio", "", "about")

	cmd.AddCommand(update)

	return cmd
}

func idArg(args []string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
}

func parseIDs(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, nil
}
