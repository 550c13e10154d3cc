package utils

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"

	"github.com/luca-ts/impostor-backend/internal"
)

// ReadWordCSV loads the static word list: one `word,hint` pair per row.
// Rows with missing columns are skipped with a log line.
func ReadWordCSV(filePath string) ([]internal.WordPair, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open word file %s: %w", filePath, err)
	}
	defer f.Close()

	csvReader := csv.NewReader(f)
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse word file %s: %w", filePath, err)
	}

	var words []internal.WordPair
	for _, record := range records {
		if len(record) < 2 || record[0] == "" {
			log.Println("[ReadWordCSV] Skipping invalid record:", record)
			continue
		}
		words = append(words, internal.WordPair{Word: record[0], Hint: record[1]})
	}

	if len(words) == 0 {
		return nil, fmt.Errorf("word file %s contains no usable word/hint pairs", filePath)
	}
	return words, nil
}
