package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/fabfab/review-agent/api"
	"github.com/fabfab/review-agent/config"
	"github.com/fabfab/review-agent/docx"
	"github.com/fabfab/review-agent/review"
	"github.com/fabfab/review-agent/storage"
	"github.com/fabfab/review-agent/suggest"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "review-agent",
		Short: "Checklist-driven document review assistant",
		Long: `review-agent reviews structured Word write-ups against a 20-point
investigation checklist.

It splits an uploaded document into sections by bold-heading heuristics,
critiques each section through a configurable suggestion provider, and bakes
accepted feedback back into a copy of the document as native comments (with
an appended summary page as fallback).`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(reviewCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if config.ParseBool("REVIEW_AGENT_DEBUG", false) {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the review HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			store := storage.New(afero.NewOsFs(), cfg.UploadDir, cfg.OutputDir)
			if err := store.Init(); err != nil {
				return fmt.Errorf("init storage: %w", err)
			}

			guidelines := review.LoadGuidelines(cfg, logger)
			suggester, err := suggest.New(ctx, cfg, guidelines.Checklist)
			if err != nil {
				return fmt.Errorf("suggester setup: %w", err)
			}

			registry := review.NewRegistry(time.Duration(cfg.SessionTTL))
			registry.Start(5 * time.Minute)
			defer registry.Stop()

			segmenter := review.Segmenter{
				StandardSections: cfg.Review.StandardSections,
				ExcludedSections: cfg.Review.ExcludedSections,
				Logger:           logger,
			}
			svc := review.NewService(store, suggester, registry, segmenter, logger)
			server := api.New(svc, store, logger)

			httpServer := &http.Server{
				Addr:              cfg.Addr,
				Handler:           server.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info().Str("addr", cfg.Addr).Str("provider", cfg.Suggest.Provider).
					Msg("review api listening")
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("serve: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer shutdownCancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}
}

func reviewCmd() *cobra.Command {
	var (
		inPath  string
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review a document in one shot, accepting every suggestion",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			guidelines := review.LoadGuidelines(cfg, logger)
			suggester, err := suggest.New(ctx, cfg, guidelines.Checklist)
			if err != nil {
				return fmt.Errorf("suggester setup: %w", err)
			}

			doc, err := docx.Open(inPath)
			if err != nil {
				return err
			}

			segmenter := review.Segmenter{
				StandardSections: cfg.Review.StandardSections,
				ExcludedSections: cfg.Review.ExcludedSections,
				Logger:           logger,
			}
			sections := segmenter.Segment(doc.Paragraphs)

			var pending []review.PendingComment
			for _, name := range sections.Names() {
				sec, _ := sections.Get(name)
				items, err := suggester.Suggest(ctx, name, sec.Body)
				if err != nil {
					logger.Warn().Err(err).Str("section", name).Msg("analysis failed, skipping section")
					continue
				}
				for _, item := range items {
					if len(item.HawkeyeRefs) == 0 {
						item.HawkeyeRefs = review.LookupReferences(item.Category, item.Description)
					}
					if item.RiskLevel == "" {
						item.RiskLevel = review.ClassifyRisk(item)
					}
					if len(sec.ParagraphIndices) == 0 {
						continue
					}
					pending = append(pending, review.PendingComment{
						Section:        name,
						ParagraphIndex: sec.ParagraphIndices[0],
						Comment:        review.CompileComment(item),
						Type:           item.Type,
						RiskLevel:      item.RiskLevel,
						Author:         review.AuthorAI,
					})
				}
				logger.Info().Str("section", name).Int("items", len(items)).Msg("section analyzed")
			}

			if len(pending) == 0 {
				return fmt.Errorf("no feedback produced for %s", inPath)
			}

			comments := make([]docx.Comment, len(pending))
			for i, pc := range pending {
				comments[i] = docx.Comment{ParagraphIndex: pc.ParagraphIndex, Author: pc.Author, Text: pc.Comment}
			}

			if err := docx.InjectComments(inPath, outPath, comments); err != nil {
				logger.Warn().Err(err).Msg("native comment injection failed, writing appendix")
				appendix := make([]docx.AppendixComment, len(pending))
				for i, pc := range pending {
					appendix[i] = docx.AppendixComment{
						Comment: comments[i],
						Section: pc.Section,
						Type:    pc.Type,
						Risk:    pc.RiskLevel,
					}
				}
				if err := docx.WriteAppendix(inPath, outPath, appendix); err != nil {
					return fmt.Errorf("generate reviewed document: %w", err)
				}
			}

			fmt.Printf("Reviewed document written to %s (%d comments)\n", outPath, len(pending))
			return nil
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "path to the .docx write-up to review")
	cmd.Flags().StringVar(&outPath, "out", "reviewed.docx", "path for the reviewed output document")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}
