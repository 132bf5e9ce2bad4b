// Package writer persists transaction tick history as parquet files, locally
// and optionally to S3. It consumes ticks from the scheduler through a
// buffered channel so a slow flush never stalls a simulation pass.
package writer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	parquetwriter "github.com/xitongsys/parquet-go/writer"

	appconfig "bricsflow/config"
	"bricsflow/internal/metrics"
	"bricsflow/logger"
	"bricsflow/models"
)

// TickRecord is the parquet row layout for one archived transaction.
type TickRecord struct {
	TickID        string  `parquet:"name=tick_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	TransactionID string  `parquet:"name=transaction_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Timestamp     int64   `parquet:"name=timestamp, type=INT64"`
	Company       string  `parquet:"name=company, type=BYTE_ARRAY, convertedtype=UTF8"`
	Product       string  `parquet:"name=product, type=BYTE_ARRAY, convertedtype=UTF8"`
	Industry      string  `parquet:"name=industry, type=BYTE_ARRAY, convertedtype=UTF8"`
	CreditRating  string  `parquet:"name=credit_rating, type=BYTE_ARRAY, convertedtype=UTF8"`
	Amount        float64 `parquet:"name=amount, type=DOUBLE"`
	TenorDays     int32   `parquet:"name=tenor_days, type=INT32"`
	PD            float64 `parquet:"name=pd, type=DOUBLE"`
	RecoveryRate  float64 `parquet:"name=recovery_rate, type=DOUBLE"`
	Collateral    string  `parquet:"name=collateral_type, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// memoryFileWriter implements the ParquetFile interface for in-memory writing
type memoryFileWriter struct {
	buffer *bytes.Buffer
}

func newMemoryFileWriter() *memoryFileWriter {
	return &memoryFileWriter{buffer: &bytes.Buffer{}}
}

func (mfw *memoryFileWriter) Create(name string) (source.ParquetFile, error) {
	return mfw, nil
}

func (mfw *memoryFileWriter) Open(name string) (source.ParquetFile, error) {
	return mfw, nil
}

func (mfw *memoryFileWriter) Seek(offset int64, whence int) (int64, error) {
	// Write-only usage; seeking is never required for our row groups.
	return int64(mfw.buffer.Len()), nil
}

func (mfw *memoryFileWriter) Read(b []byte) (int, error) {
	return mfw.buffer.Read(b)
}

func (mfw *memoryFileWriter) Write(b []byte) (int, error) {
	return mfw.buffer.Write(b)
}

func (mfw *memoryFileWriter) Close() error {
	return nil
}

func (mfw *memoryFileWriter) Bytes() []byte {
	return mfw.buffer.Bytes()
}

type archiveWriter struct {
	config      *appconfig.Config
	ticks       chan models.TransactionTick
	s3Client    *s3.Client
	ctx         context.Context
	wg          *sync.WaitGroup
	mu          sync.RWMutex
	running     bool
	log         *logger.Log
	buffer      []TickRecord
	flushTicker *time.Ticker
	now         func() time.Time
}

// ArchiveWriter is an exported alias for archiveWriter allowing external
// packages to interact with the writer while keeping the implementation
// private.
type ArchiveWriter = archiveWriter

// NewArchiveWriter builds the tick history archiver. When archiving is
// disabled the returned writer is nil. An S3 client is only constructed when
// S3 storage is enabled.
func NewArchiveWriter(cfg *appconfig.Config) (*ArchiveWriter, error) {
	if !cfg.Archive.Enabled {
		return nil, nil
	}

	log := logger.GetLogger()

	w := &archiveWriter{
		config: cfg,
		ticks:  make(chan models.TransactionTick, 64),
		wg:     &sync.WaitGroup{},
		log:    log,
		now:    time.Now,
	}

	if cfg.Storage.S3.Enabled {
		client, err := newS3Client(cfg)
		if err != nil {
			return nil, err
		}
		w.s3Client = client

		log.WithComponent("archive_writer").WithFields(logger.Fields{
			"bucket":     cfg.Storage.S3.Bucket,
			"region":     cfg.Storage.S3.Region,
			"endpoint":   cfg.Storage.S3.Endpoint,
			"path_style": cfg.Storage.S3.PathStyle,
		}).Info("s3 upload enabled for tick archive")
	}

	return w, nil
}

func newS3Client(cfg *appconfig.Config) (*s3.Client, error) {
	ctx := context.Background()

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Storage.S3.Region),
	}
	if cfg.Storage.S3.AccessKeyID != "" && cfg.Storage.S3.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.Storage.S3.AccessKeyID,
				cfg.Storage.S3.SecretAccessKey,
				"",
			),
		))
	}

	awsConfig, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	creds, err := awsConfig.Credentials.Retrieve(ctx)
	if err != nil || !creds.HasKeys() {
		return nil, fmt.Errorf("aws credentials not found")
	}

	return s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Storage.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.S3.Endpoint)
		}
		o.UsePathStyle = cfg.Storage.S3.PathStyle
	}), nil
}

// Enqueue accepts a transaction tick from the scheduler. It never blocks: a
// full channel drops the tick with a warning rather than stalling a pass.
func (w *archiveWriter) Enqueue(tick models.TransactionTick) {
	if w == nil {
		return
	}
	select {
	case w.ticks <- tick:
	default:
		w.log.WithComponent("archive_writer").WithFields(logger.Fields{
			"tick_id":      tick.TickID,
			"transactions": len(tick.Transactions),
		}).Warn("archive channel full, dropping tick")
	}
}

// Start launches the buffering worker and the flush worker.
func (w *archiveWriter) Start(ctx context.Context) error {
	if w == nil {
		return nil
	}

	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("archive writer already running")
	}
	w.running = true
	w.ctx = ctx
	w.mu.Unlock()

	log := w.log.WithComponent("archive_writer").WithFields(logger.Fields{"operation": "start"})
	log.Info("starting archive writer")

	interval := w.config.Archive.FlushInterval
	if interval <= 0 {
		interval = time.Minute
	}
	w.flushTicker = time.NewTicker(interval)

	w.wg.Add(1)
	go w.worker()

	log.WithFields(logger.Fields{
		"output_dir":     w.config.Archive.OutputDir,
		"batch_size":     w.config.Archive.BatchSize,
		"flush_interval": interval.String(),
	}).Info("archive writer started successfully")
	return nil
}

// Stop drains the worker. The worker flushes remaining buffered records on
// context cancellation, so Stop should be called after the context is done.
func (w *archiveWriter) Stop() {
	if w == nil {
		return
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	w.log.WithComponent("archive_writer").Info("stopping archive writer")
	w.wg.Wait()
	w.log.WithComponent("archive_writer").Info("archive writer stopped")
}

func (w *archiveWriter) worker() {
	defer w.wg.Done()

	log := w.log.WithComponent("archive_writer").WithFields(logger.Fields{"worker": "flush"})
	log.Info("starting archive worker")

	for {
		select {
		case <-w.ctx.Done():
			w.drain()
			w.flush("shutdown")
			log.Info("archive worker stopped due to context cancellation")
			return
		case tick := <-w.ticks:
			w.append(tick)
			if len(w.buffer) >= w.batchSize() {
				w.flush("batch_size")
			}
		case <-w.flushTicker.C:
			w.flush("interval")
		}
	}
}

func (w *archiveWriter) batchSize() int {
	if w.config.Archive.BatchSize <= 0 {
		return 50
	}
	return w.config.Archive.BatchSize
}

func (w *archiveWriter) drain() {
	for {
		select {
		case tick := <-w.ticks:
			w.append(tick)
		default:
			return
		}
	}
}

func (w *archiveWriter) append(tick models.TransactionTick) {
	for _, tx := range tick.Transactions {
		w.buffer = append(w.buffer, TickRecord{
			TickID:        tick.TickID,
			TransactionID: tx.ID,
			Timestamp:     tx.Timestamp.UnixMilli(),
			Company:       tx.ObligorID,
			Product:       string(tx.Type),
			Industry:      string(tx.Industry),
			CreditRating:  string(tx.CreditRating),
			Amount:        tx.Amount,
			TenorDays:     int32(tx.TenorDays),
			PD:            tx.PD,
			RecoveryRate:  tx.RecoveryRate,
			Collateral:    string(tx.CollateralType),
		})
	}
}

func (w *archiveWriter) flush(reason string) {
	if len(w.buffer) == 0 {
		return
	}

	records := w.buffer
	w.buffer = nil

	log := w.log.WithComponent("archive_writer").WithFields(logger.Fields{
		"records": len(records),
		"reason":  reason,
	})
	log.Info("flushing tick archive")

	name := w.fileName()
	if err := w.writeLocal(name, records); err != nil {
		log.WithError(err).WithFields(logger.Fields{"file": name}).Error("failed to write archive file")
		return
	}

	if w.s3Client != nil {
		if err := w.uploadToS3(name, records); err != nil {
			log.WithError(err).
				WithEnv("S3_BUCKET").
				WithFields(logger.Fields{"bucket": w.config.Storage.S3.Bucket, "s3_key": name}).
				Error("failed to upload archive to S3")
		}
	}

	logger.IncrementArchiveWrite()
	metrics.AddArchiveRows(len(records))

	log.WithFields(logger.Fields{
		"file":    name,
		"records": len(records),
	}).Info("tick archive flushed successfully")
}

// fileName builds a date-partitioned relative path for one parquet file.
func (w *archiveWriter) fileName() string {
	now := w.now().UTC()
	id := uuid.New().String()[:8]
	return filepath.ToSlash(filepath.Join(
		fmt.Sprintf("date=%s", now.Format("2006-01-02")),
		fmt.Sprintf("ticks_%s_%s.parquet", now.Format("20060102150405"), id),
	))
}

// writeParquet streams the records into the given parquet sink with the
// configured compression codec.
func (w *archiveWriter) writeParquet(fw source.ParquetFile, records []TickRecord) error {
	pw, err := parquetwriter.NewParquetWriter(fw, new(TickRecord), 4)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}

	switch w.config.Archive.Compression {
	case "snappy":
		pw.CompressionType = parquet.CompressionCodec_SNAPPY
	case "gzip":
		pw.CompressionType = parquet.CompressionCodec_GZIP
	case "lzo":
		pw.CompressionType = parquet.CompressionCodec_LZO
	default:
		pw.CompressionType = parquet.CompressionCodec_UNCOMPRESSED
	}

	for _, record := range records {
		if err := pw.Write(record); err != nil {
			pw.WriteStop()
			return fmt.Errorf("failed to write parquet record: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("failed to finalize parquet writing: %w", err)
	}
	return nil
}

func (w *archiveWriter) writeLocal(name string, records []TickRecord) error {
	path := filepath.Join(w.config.Archive.OutputDir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}

	if err := w.writeParquet(fw, records); err != nil {
		fw.Close()
		return err
	}
	return fw.Close()
}

func (w *archiveWriter) uploadToS3(key string, records []TickRecord) error {
	fw := newMemoryFileWriter()
	if err := w.writeParquet(fw, records); err != nil {
		return err
	}
	data := fw.Bytes()
	input := &s3.PutObjectInput{
		Bucket:      aws.String(w.config.Storage.S3.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
		Metadata: map[string]string{
			"content-type":      "parquet",
			"compression":       w.config.Archive.Compression,
			"bricsflow-version": w.config.Bricsflow.Version,
		},
	}

	ctx := context.WithoutCancel(w.ctx)
	_, err := w.s3Client.PutObject(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to upload to S3 bucket %s: %w", w.config.Storage.S3.Bucket, err)
	}
	return nil
}
