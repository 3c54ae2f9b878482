package cmd

import (
	"context"

	"github.com/Sternrassler/xmatters-sync/internal/config"
	"github.com/Sternrassler/xmatters-sync/internal/jobs"
	"github.com/spf13/cobra"
)

var (
	dryRun        bool
	applyUpdates  bool
	responsesDate string
)

var activateDevicesCmd = &cobra.Command{
	Use:   config.JobActivateDevices,
	Short: "Activate all inactive devices of the configured type",
	Long: `Lists every INACTIVE device of devices.device_type and sets it ACTIVE.

Example:
  xmsync activate-devices --config xmsync.yaml --dry-run`,
	Args: cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app) error {
		return a.runJob(ctx, config.JobActivateDevices, jobs.Options{DryRun: dryRun})
	}),
}

var importUsersCmd = &cobra.Command{
	Use:   config.JobImportUsers,
	Short: "Create people from a CSV file",
	Long: `Reads import_users.file_name and creates one ACTIVE person per distinct
value of import_users.id_column. The id is used as targetName, first and last
name and web login.`,
	Args: cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app) error {
		return a.runJob(ctx, config.JobImportUsers, jobs.Options{})
	}),
}

var deviceFieldsCmd = &cobra.Command{
	Use:   config.JobDeviceFields,
	Short: "Update the mobile app, SMS and voice custom fields",
	Long: `Lists active people with their devices, writes the computed flags to
device_fields.file_name and updates people whose custom fields differ.`,
	Args: cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app) error {
		return a.runJob(ctx, config.JobDeviceFields, jobs.Options{})
	}),
}

var teamRegionsCmd = &cobra.Command{
	Use:   config.JobTeamRegions,
	Short: "Store each person's dynamic team in a custom field",
	Long: `Matches active people against the dynamic team rules in
team_regions.rules_file. Updates are only written with --apply.`,
	Args: cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app) error {
		return a.runJob(ctx, config.JobTeamRegions, jobs.Options{Apply: applyUpdates})
	}),
}

var responsesCmd = &cobra.Command{
	Use:   config.JobResponses,
	Short: "Report the responses to flagged events",
	Long: `Lists events created since midnight UTC that carry the configured property
and writes a summary and a detail CSV of their user deliveries.

Example:
  xmsync responses --date 2024-04-15`,
	Args: cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app) error {
		return a.runJob(ctx, config.JobResponses, jobs.Options{Date: responsesDate})
	}),
}

func init() {
	activateDevicesCmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"List the devices that would be activated without changing them")
	teamRegionsCmd.Flags().BoolVar(&applyUpdates, "apply", false,
		"Write the computed regions to xMatters")
	responsesCmd.Flags().StringVar(&responsesDate, "date", "",
		"Report events from this day (YYYY-MM-DD) instead of today")

	rootCmd.AddCommand(activateDevicesCmd, importUsersCmd, deviceFieldsCmd, teamRegionsCmd, responsesCmd)
}
