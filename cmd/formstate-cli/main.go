// Command formstate-cli builds the initial QuestionnaireResponse for a
// questionnaire definition and prints it as JSON. The definition comes
// from a FHIR document (JSON or YAML, local or HTTP) or is derived from an
// OpenAPI operation; an optional prior response is reconciled in.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/goliatone/go-formstate/pkg/formstate"
	"github.com/goliatone/go-formstate/pkg/loader"
	"github.com/goliatone/go-formstate/pkg/openapi"
	"github.com/goliatone/go-formstate/pkg/store"
)

func main() {
	source := flag.String("source", "", "Questionnaire path or URL (JSON or YAML)")
	fromOpenAPI := flag.String("from-openapi", "", "OpenAPI document path; derives the questionnaire from an operation")
	operation := flag.String("operation", "", "operation ID to convert when using -from-openapi")
	response := flag.String("response", "", "prior QuestionnaireResponse path or URL to reconcile")
	output := flag.String("output", "", "output file (stdout if empty)")
	dbPath := flag.String("db", "", "SQLite database to autosave the response into")
	flag.Parse()

	ctx := context.Background()
	docs := loader.New()

	options := []formstate.Option{
		formstate.WithIDSource(formstate.UUIDSource{}),
	}

	switch {
	case *fromOpenAPI != "":
		data, err := docs.Fetch(ctx, loader.FromFile(*fromOpenAPI))
		if err != nil {
			log.Fatalf("Failed to read OpenAPI document: %v", err)
		}
		if *operation == "" {
			ids, err := openapi.OperationIDs(ctx, data)
			if err != nil {
				log.Fatalf("Failed to list operations: %v", err)
			}
			log.Fatalf("-operation is required; available: %v", ids)
		}
		q, err := openapi.Convert(ctx, data, openapi.Options{OperationID: *operation})
		if err != nil {
			log.Fatalf("Failed to convert OpenAPI operation: %v", err)
		}
		options = append(options, formstate.WithQuestionnaire(q))
	case *source != "":
		options = append(options, formstate.WithQuestionnaireRef(docs, *source))
	default:
		log.Fatal("either -source or -from-openapi is required")
	}

	if *response != "" {
		options = append(options, formstate.WithResponseRef(docs, *response))
	}

	if *dbPath != "" {
		db, err := store.Open(*dbPath)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer db.Close()
		options = append(options, formstate.WithChangeHandler(db.ResponseSink(ctx)))
	}

	engine := formstate.New(options...)
	if err := engine.Load(ctx); err != nil {
		log.Fatalf("Failed to build form state: %v", err)
	}

	payload, err := json.MarshalIndent(engine.Response(), "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode response: %v", err)
	}
	payload = append(payload, '\n')

	if *output != "" {
		if err := os.WriteFile(*output, payload, 0o644); err != nil {
			log.Fatalf("Failed to write output: %v", err)
		}
		fmt.Printf("Response written to %s\n", *output)
	} else {
		fmt.Print(string(payload))
	}
}
