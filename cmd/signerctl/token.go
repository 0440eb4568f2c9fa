package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/myinvois-signer/pkg/jwt"
)

func newTokenCmd() *cobra.Command {
	var clientID, companyID, tin string
	var minutes int
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Emite un Bearer token para un integrador",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if minutes <= 0 {
				minutes = cfg.JWT.Expiration
			}
			if tin == "" {
				tin = cfg.MyInvois.TIN
			}
			tok, err := jwt.Generate(cfg.JWT.Secret, clientID, companyID, tin, cfg.JWT.Issuer, minutes)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&clientID, "client", "", "identificador del integrador")
	cmd.Flags().StringVar(&companyID, "company", "", "empresa dueña de los documentos")
	cmd.Flags().StringVar(&tin, "tin", "", "TIN del contribuyente (por defecto MYINVOIS_TIN)")
	cmd.Flags().IntVar(&minutes, "minutes", 0, "vigencia en minutos (por defecto JWT_EXPIRATION_MINUTES)")
	_ = cmd.MarkFlagRequired("client")
	_ = cmd.MarkFlagRequired("company")
	return cmd
}
