package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get PATH [key=value...]",
	Short: "GET /http/PATH and print the decoded response",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := parseParams(args[1:])
		if err != nil {
			return err
		}
		client, err := newClient()
		if err != nil {
			return err
		}
		v, err := client.HTTPGet(cmd.Context(), args[0], params)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), v, true)
	},
}

var postCmd = &cobra.Command{
	Use:   "post PATH BODY [key=value...]",
	Short: "POST a JSON BODY to /http/PATH and print the decoded response",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var body any
		if err := json.Unmarshal([]byte(args[1]), &body); err != nil {
			return fmt.Errorf("body is not valid JSON: %w", err)
		}
		params, err := parseParams(args[2:])
		if err != nil {
			return err
		}
		client, err := newClient()
		if err != nil {
			return err
		}
		v, err := client.HTTPPost(cmd.Context(), args[0], body, params)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), v, true)
	},
}
