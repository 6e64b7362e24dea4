package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"pdfcheck/internal/comparator"
	"pdfcheck/internal/config"
	"pdfcheck/internal/master"
	"pdfcheck/internal/pipeline"
	"pdfcheck/internal/report"
	"pdfcheck/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	log := logrus.New()
	log.SetLevel(logrus.InfoLevel)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	switch cmd {
	case "verify":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		masterPath := fs.String("master", "", "master data xlsx")
		out := fs.String("out", cfg.OutputDir, "output directory for reports")
		concurrency := fs.Int("concurrency", cfg.CompareConcurrency, "parallel comparator calls")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*masterPath) == "" {
			must(fmt.Errorf("--master is required"))
		}
		if len(fs.Args()) == 0 {
			must(fmt.Errorf("at least one PDF file or directory is required"))
		}
		must(cfg.Require("OPENAI_API_KEY", cfg.OpenAIAPIKey))
		cfg.CompareConcurrency = *concurrency

		table, err := master.Load(*masterPath, cfg.MasterIDColumn)
		must(err)
		index := master.BuildIndex(table)
		if len(index.Duplicates) > 0 {
			log.WithField("duplicates", len(index.Duplicates)).
				Warn("master data contains duplicate identifiers; first row wins")
		}
		log.WithFields(logrus.Fields{"records": index.Size(), "columns": len(table.Columns)}).
			Info("master data loaded")

		docs, err := collectDocuments(fs.Args())
		must(err)

		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()

		client := comparator.NewClient(cfg, log)
		service := pipeline.NewProcessingService(cfg, index, client, db, log)
		outcomes, summary, runID, err := service.ProcessBatch(context.Background(), filepath.Base(*masterPath), docs)
		must(err)

		rows := pipeline.BuildReportRows(outcomes)
		report.RenderRows(os.Stdout, rows)
		report.RenderSummary(os.Stdout, summary)

		stamp := time.Now().Format("20060102_150405")
		fullPath := filepath.Join(*out, fmt.Sprintf("validation_report_%s.xlsx", stamp))
		problemsPath := filepath.Join(*out, fmt.Sprintf("problems_only_%s.xlsx", stamp))
		must(pipeline.ExportRowsToXLSX(rows, fullPath))
		must(pipeline.ExportRowsToXLSX(pipeline.FilterProblemRows(rows), problemsPath))
		fmt.Printf("verify done runId=%d full=%s problems=%s\n", runID, fullPath, problemsPath)
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		runID := fs.Int64("runId", 0, "stored run id")
		out := fs.String("out", "", "output xlsx path")
		problemsOnly := fs.Bool("problems-only", false, "export only discrepancies and errors")
		_ = fs.Parse(os.Args[2:])
		if *runID == 0 || strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--runId and --out are required"))
		}
		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()
		rows, err := db.GetReportRows(*runID)
		must(err)
		if *problemsOnly {
			rows = pipeline.FilterProblemRows(rows)
		}
		must(pipeline.ExportRowsToXLSX(rows, *out))
		fmt.Printf("exported %d rows to %s\n", len(rows), *out)
	case "runs:list":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		limit := fs.Int("limit", 20, "max runs")
		_ = fs.Parse(os.Args[2:])
		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()
		runs, err := db.ListRuns(*limit)
		must(err)
		report.RenderRuns(os.Stdout, runs)
	case "inspect":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		pdfPath := fs.String("pdf", "", "PDF file to inspect")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*pdfPath) == "" {
			must(fmt.Errorf("--pdf is required"))
		}
		content, err := os.ReadFile(*pdfPath)
		must(err)
		text, err := pipeline.ExtractText(content)
		must(err)
		id, found := pipeline.FindPatientID(text)
		if !found {
			id = "(not found)"
		}
		fmt.Printf("file=%s textChars=%d patientId=%s\n", filepath.Base(*pdfPath), len(text), id)
	default:
		usage()
		os.Exit(1)
	}
}

// collectDocuments reads every argument as a PDF file, or as a directory of
// PDF files. Missing inputs are a startup failure, not a per-document one.
func collectDocuments(args []string) ([]pipeline.Document, error) {
	docs := []pipeline.Document{}
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			entries, err := os.ReadDir(arg)
			if err != nil {
				return nil, err
			}
			for _, entry := range entries {
				if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
					continue
				}
				content, err := os.ReadFile(filepath.Join(arg, entry.Name()))
				if err != nil {
					return nil, err
				}
				docs = append(docs, pipeline.Document{FileName: entry.Name(), Content: content})
			}
			continue
		}
		content, err := os.ReadFile(arg)
		if err != nil {
			return nil, err
		}
		docs = append(docs, pipeline.Document{FileName: filepath.Base(arg), Content: content})
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no PDF files found in arguments")
	}
	return docs, nil
}

func usage() {
	fmt.Println("usage: pdfcheck <command>")
	fmt.Println("commands:")
	fmt.Println("  verify --master=master.xlsx [--out=./out] [--concurrency=1] <pdf-file-or-dir>...")
	fmt.Println("  export:xlsx --runId=1 --out=./out/report.xlsx [--problems-only]")
	fmt.Println("  runs:list [--limit=20]")
	fmt.Println("  inspect --pdf=document.pdf")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
