// =============================================================================
// ykj-wgs - Main Entry Point
// =============================================================================
//
// ykj-wgs reads named grid points (KKJ uniform coordinate system) from a CSV
// or XLSX file, converts them to ETRS89 latitude/longitude through the
// National Land Survey coordinate service, prints a progress report and
// writes the result as a GPX document of tracks and waypoints.
//
// USAGE:
//   ykj-wgs points.csv        - Convert points.csv, write points.csv.gpx
//   ykj-wgs @args.txt         - Read the arguments from args.txt
//   ykj-wgs config            - Print the effective configuration
//   ykj-wgs version           - Display the application version
//
// =============================================================================

package main

import (
	"github.com/razz0/ykj-wgs/cmd"
)

func main() {
	cmd.Execute()
}
