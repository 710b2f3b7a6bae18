// mastersheet combines the per-image statistics workbooks in a directory into
// SummarySheet/Summary.xlsx.
package main

import (
	"flag"
	"os"

	"github.com/carbocation/labels2rois/compileinfo"
	"github.com/carbocation/labels2rois/summary"
	"github.com/sirupsen/logrus"
)

func main() {
	var statsDir, output string
	var debug bool

	flag.StringVar(&statsDir, "dir", "", "Directory holding the .xlsx or .xls statistics workbooks")
	flag.StringVar(&output, "output", "", "(Optional) Path of the summary workbook. Defaults to <dir>/SummarySheet/Summary.xlsx")
	flag.BoolVar(&debug, "debug", false, "Log per-file object counts")
	flag.Parse()

	if statsDir == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if debug {
		log.SetLevel(logrus.DebugLevel)
	}
	compileinfo.Log(log)

	if output == "" {
		output = summary.PathFor(statsDir)
	}

	rows, err := summary.Aggregate(statsDir)
	if err != nil {
		log.Fatalln(err)
	}

	for _, row := range rows {
		entry := log.WithFields(logrus.Fields{
			"file":            row.FileLocation,
			"objects":         row.Objects,
			"max_label":       row.MaxLabel,
			"distinct_labels": row.DistinctLabels,
		})
		if row.Objects != row.DistinctLabels {
			entry.Warnln("Last label differs from the number of distinct labels")
			continue
		}
		entry.Debugln("Summarized")
	}

	if err := summary.Write(output, rows); err != nil {
		log.Fatalln(err)
	}

	log.Infof("Master sheet saved to %s", output)
}
