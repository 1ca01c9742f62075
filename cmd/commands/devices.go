/*
 * MIT License
 *
 * Copyright (c) 2026 Nguyen Thanh Phuong
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phuonguno98/unoprobe/internal/devices"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Manage the monitored device list",
	Long: `List, add and remove the devices stored in the device list file.

Examples:
  # List devices
  unoprobe devices list

  # Add a windows_exporter endpoint
  unoprobe devices add web-01 http://10.0.0.5:9182/metrics

  # Add the machine UnoProbe runs on
  unoprobe devices add this-host local://`,
}

var devicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List devices",
	Args:  cobra.NoArgs,
	RunE:  runDevicesList,
}

var devicesAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Add a device",
	Args:  cobra.ExactArgs(2),
	RunE:  runDevicesAdd,
}

var devicesRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a device",
	Args:  cobra.ExactArgs(1),
	RunE:  runDevicesRemove,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
	devicesCmd.AddCommand(devicesListCmd, devicesAddCmd, devicesRemoveCmd)
	devicesCmd.PersistentFlags().StringVarP(&devicesFile, "devices-file", "d", "",
		"Device list file (default: <user config dir>/unoprobe/devices.yaml)")
}

// openRegistry loads the device list selected by config and flags.
func openRegistry(cmd *cobra.Command) (*devices.Registry, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("devices-file") {
		cfg.DevicesFile = devicesFile
	}
	return devices.Load(cfg.DevicesFile)
}

func runDevicesList(cmd *cobra.Command, _ []string) error {
	registry, err := openRegistry(cmd)
	if err != nil {
		return err
	}

	list := registry.List()
	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(out, "\nNo devices configured.")
		fmt.Fprintln(out, "\nExample usage:")
		fmt.Fprintln(out, "  unoprobe devices add web-01 http://10.0.0.5:9182/metrics")
		return nil
	}

	fmt.Fprint(out, devices.FormatDevicesTable(list))
	return nil
}

func runDevicesAdd(cmd *cobra.Command, args []string) error {
	registry, err := openRegistry(cmd)
	if err != nil {
		return err
	}

	dev, err := registry.Add(args[0], args[1])
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", dev.Name, dev.ID)
	return nil
}

func runDevicesRemove(cmd *cobra.Command, args []string) error {
	registry, err := openRegistry(cmd)
	if err != nil {
		return err
	}

	if err := registry.Remove(args[0]); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
	return nil
}
