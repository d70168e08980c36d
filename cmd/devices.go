package main

import (
	"errors"
	"os"
	"strconv"

	"github.com/cwbudde/clburn/internal/cl"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List OpenCL platforms and their devices",
	Long: `Enumerates every OpenCL platform on the system and prints its devices,
without applying the vendor filter. Useful for checking what 'run' will see.`,
	RunE: listDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func listDevices(cmd *cobra.Command, args []string) error {
	platforms, err := cl.Enumerate()
	if err != nil {
		return err
	}
	if len(platforms) == 0 {
		return errors.New("no OpenCL platforms found")
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"#", "Platform", "Vendor", "Device", "Type", "CUs"})

	index := 0
	for _, platform := range platforms {
		for _, device := range platform.Devices {
			table.Append([]string{
				strconv.Itoa(index),
				platform.Name,
				platform.Vendor,
				device.Name,
				string(device.Type),
				strconv.FormatUint(uint64(device.MaxComputeUnits), 10),
			})
			index++
		}
	}

	table.Render()
	return nil
}
