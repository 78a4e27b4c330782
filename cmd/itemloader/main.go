package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/vectorprep/session-service/internal/config"
	"github.com/vectorprep/session-service/internal/models"
	"github.com/vectorprep/session-service/internal/repositories/postgres"
	"github.com/vectorprep/session-service/internal/validator"
	"github.com/vectorprep/session-service/pkg"
)

// itemloader bulk-loads catalog questions from an Excel workbook into the
// database. The session engine itself never writes to the catalog, so all
// item maintenance goes through this tool.
//
// Expected columns (header row, case-insensitive):
//
//	text, options, subject, difficulty, concept, correct_answer,
//	solution, frequency_weight, priority_score
func main() {
	var (
		filePath = flag.String("file", "", "path to the Excel workbook (required)")
		sheet    = flag.String("sheet", "", "sheet name (defaults to the first sheet)")
		dryRun   = flag.Bool("dry-run", false, "parse and validate without writing to the database")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *filePath == "" {
		logger.Error("Missing required -file flag")
		flag.Usage()
		os.Exit(2)
	}

	questions, err := parseWorkbook(*filePath, *sheet)
	if err != nil {
		logger.Error("Failed to parse workbook", "error", err)
		os.Exit(1)
	}
	logger.Info("Parsed questions from workbook", "count", len(questions), "file", *filePath)

	if *dryRun {
		logger.Info("Dry run, skipping database write")
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := db.AutoMigrate(&models.Question{}); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	repo := postgres.NewRepository(db)
	if err := repo.Question().CreateBatch(context.Background(), questions); err != nil {
		logger.Error("Failed to insert questions", "error", err)
		os.Exit(1)
	}

	logger.Info("Loaded questions into catalog", "count", len(questions))
}

var requiredColumns = []string{"text", "subject", "difficulty", "concept", "correct_answer"}

func parseWorkbook(path, sheet string) ([]*models.Question, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("sheet %q must have a header row and at least one data row", sheet)
	}

	headerMap := make(map[string]int)
	for i, header := range rows[0] {
		headerMap[strings.ToLower(strings.TrimSpace(header))] = i
	}
	for _, col := range requiredColumns {
		if _, exists := headerMap[col]; !exists {
			return nil, fmt.Errorf("missing required column: %s", col)
		}
	}

	v := validator.New()
	questions := make([]*models.Question, 0, len(rows)-1)
	for rowIndex, row := range rows[1:] {
		question, err := parseRow(row, headerMap)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowIndex+2, err)
		}
		if err := v.Validate(question); err != nil {
			return nil, fmt.Errorf("row %d: %w", rowIndex+2, err)
		}
		questions = append(questions, question)
	}
	return questions, nil
}

func parseRow(row []string, headerMap map[string]int) (*models.Question, error) {
	cell := func(name string) string {
		index, exists := headerMap[name]
		if !exists || index >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[index])
	}

	question := &models.Question{
		Text:          cell("text"),
		Subject:       models.Subject(strings.ToLower(cell("subject"))),
		Difficulty:    models.DifficultyLevel(strings.ToLower(cell("difficulty"))),
		Concept:       cell("concept"),
		CorrectAnswer: cell("correct_answer"),
		Solution:      cell("solution"),
		IsActive:      true,
	}

	if options := cell("options"); options != "" {
		question.Options = &options
	}

	var err error
	if question.FrequencyWeight, err = parseOptionalInt(cell("frequency_weight")); err != nil {
		return nil, fmt.Errorf("invalid frequency_weight: %w", err)
	}
	if question.PriorityScore, err = parseOptionalInt(cell("priority_score")); err != nil {
		return nil, fmt.Errorf("invalid priority_score: %w", err)
	}

	return question, nil
}

func parseOptionalInt(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}
