package command

import (
	"fmt"

	"petshop/cmd/cli/authentication"
	"petshop/cmd/cli/command/client"

	"github.com/spf13/cobra"
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List the product catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")

		products, err := client.NewHTTPClient(apiURL).ListProducts(cmd.Context(), category)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, p := range products {
			fmt.Fprintf(out, "#%-4d %-24s %-10s %8.2f\n", p.ID, p.Name, p.Category, p.Price)
		}
		return nil
	},
}

var productsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a product to the catalog (requires login)",
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := authentication.LoadCredentials()
		if err != nil {
			return err
		}

		var req client.CreateProductRequest
		req.Name, _ = cmd.Flags().GetString("name")
		req.Category, _ = cmd.Flags().GetString("category")
		req.Price, _ = cmd.Flags().GetFloat64("price")
		req.Description, _ = cmd.Flags().GetString("description")
		req.ImageURL, _ = cmd.Flags().GetString("image")

		p, err := client.NewHTTPClient(apiURL).WithToken(creds.AccessToken).CreateProduct(cmd.Context(), &req)
		if err != nil {
			return fmt.Errorf("create product failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created product #%d %s\n", p.ID, p.Name)
		return nil
	},
}

func init() {
	productsCmd.Flags().StringP("category", "c", "", "only show this category")

	productsAddCmd.Flags().StringP("name", "n", "", "product name (required)")
	productsAddCmd.Flags().StringP("category", "c", "", "category (required)")
	productsAddCmd.Flags().Float64P("price", "p", 0, "price")
	productsAddCmd.Flags().StringP("description", "d", "", "description")
	productsAddCmd.Flags().String("image", "", "image url")
	productsAddCmd.MarkFlagRequired("name")
	productsAddCmd.MarkFlagRequired("category")

	productsCmd.AddCommand(productsAddCmd)
	rootCmd.AddCommand(productsCmd)
}
