package storage

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/pbkdf2"
)

// gcmMagic prefixes every encrypted object: magic(8) + salt(16) + nonce(12) + ciphertext + tag(16).
const gcmMagic = "GCM3NCR0"

var ErrNotEncrypted = errors.New("object is not encrypted")

// Options configures the S3 mirror.
type Options struct {
	Bucket    string
	Region    string
	Prefix    string
	AccessKey string
	SecretKey string
	// Endpoint targets an S3-compatible service; path-style addressing is used with it.
	Endpoint string
	// Password enables client-side encryption of mirrored objects when set.
	Password string
}

// S3Client mirrors job artifacts to a bucket.
type S3Client struct {
	client     *s3.Client
	uploader   *manager.Uploader
	bucketName string
	prefix     string
	password   string
}

// FileMetadata represents metadata about a stored file
type FileMetadata struct {
	OriginalName string            `json:"original_name"`
	ContentType  string            `json:"content_type"`
	Size         int64             `json:"size"`
	Encrypted    bool              `json:"encrypted"`
	Metadata     map[string]string `json:"metadata"`
}

// NewS3Client creates a new S3 client. Static credentials are used when given,
// otherwise the default AWS credential chain applies.
func NewS3Client(ctx context.Context, opts Options) (*S3Client, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	var loadOpts []func(*awscfg.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awscfg.WithRegion(opts.Region))
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}
	cfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	cli := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Client{
		client:     cli,
		uploader:   manager.NewUploader(cli),
		bucketName: opts.Bucket,
		prefix:     opts.Prefix,
		password:   opts.Password,
	}, nil
}

// Key joins the configured prefix with a storage-relative path.
func (s *S3Client) Key(rel string) string { return s.prefix + strings.TrimPrefix(rel, "/") }

// Ping checks that the bucket is reachable with the configured credentials.
func (s *S3Client) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucketName)})
	return err
}

// UploadFile uploads data under key, encrypting it first when a password is configured.
func (s *S3Client) UploadFile(ctx context.Context, key string, data []byte, metadata *FileMetadata) error {
	body := data
	s3Metadata := make(map[string]string)
	if s.password != "" {
		enc, err := encryptGCM(data, s.password)
		if err != nil {
			return fmt.Errorf("failed to encrypt data: %w", err)
		}
		body = enc
		s3Metadata["encrypted"] = "true"
		s3Metadata["encryption-format"] = gcmMagic
	}
	contentType := "application/octet-stream"
	if metadata != nil {
		if metadata.OriginalName != "" {
			s3Metadata["name"] = metadata.OriginalName
		}
		if metadata.ContentType != "" {
			contentType = metadata.ContentType
		}
		for k, v := range metadata.Metadata {
			s3Metadata[k] = v
		}
	}

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
		Metadata:    s3Metadata,
	})
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("upload failed")
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	log.Debug().Str("key", key).Int("size", len(body)).Bool("encrypted", s.password != "").Msg("uploaded object")
	return nil
}

// PublishOutput mirrors a job's document and previews, keeping the on-disk layout
// relative to the prefix. It returns the written keys, document first.
func (s *S3Client) PublishOutput(ctx context.Context, token, documentPath string, previewFiles []string) ([]string, error) {
	type item struct{ local, rel, ctype string }
	items := []item{{documentPath, path.Join("files", token, "result.pdf"), "application/pdf"}}
	for _, p := range previewFiles {
		items = append(items, item{p, path.Join("previews", token, path.Base(p)), "image/jpeg"})
	}

	keys := make([]string, 0, len(items))
	for _, it := range items {
		data, err := os.ReadFile(it.local)
		if err != nil {
			return keys, fmt.Errorf("read %s: %w", it.local, err)
		}
		key := s.Key(it.rel)
		meta := &FileMetadata{OriginalName: path.Base(it.rel), ContentType: it.ctype, Metadata: map[string]string{"token": token}}
		if err := s.UploadFile(ctx, key, data, meta); err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	log.Info().Str("token", token).Int("objects", len(keys)).Msg("published job output to S3")
	return keys, nil
}

// DownloadFile fetches key and decrypts it when it was stored encrypted.
func (s *S3Client) DownloadFile(ctx context.Context, key string) ([]byte, *FileMetadata, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to download from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read S3 object: %w", err)
	}

	metadata := &FileMetadata{Metadata: make(map[string]string)}
	for k, v := range result.Metadata {
		metadata.Metadata[strings.ToLower(k)] = v
	}
	metadata.OriginalName = metadata.Metadata["name"]
	metadata.Encrypted = metadata.Metadata["encrypted"] == "true"
	if result.ContentType != nil {
		metadata.ContentType = *result.ContentType
	}
	if result.ContentLength != nil {
		metadata.Size = *result.ContentLength
	}

	if metadata.Encrypted {
		if s.password == "" {
			return nil, nil, fmt.Errorf("object %s is encrypted but no password is configured", key)
		}
		data, err = decryptGCM(data, s.password)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to decrypt data: %w", err)
		}
	}
	return data, metadata, nil
}

func deriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, 100000, 32, sha256.New)
}

// encryptGCM seals data with AES-256-GCM under a PBKDF2-derived key.
func encryptGCM(data []byte, password string) ([]byte, error) {
	salt := make([]byte, 16)
	nonce := make([]byte, 12)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	block, err := aes.NewCipher(deriveKey(password, salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	out := make([]byte, 0, len(gcmMagic)+len(salt)+len(nonce)+len(data)+gcm.Overhead())
	out = append(out, gcmMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, data, nil), nil
}

// decryptGCM opens data produced by encryptGCM.
func decryptGCM(data []byte, password string) ([]byte, error) {
	if len(data) < 8 || string(data[:8]) != gcmMagic {
		return nil, ErrNotEncrypted
	}
	if len(data) < 8+16+12+16 {
		return nil, fmt.Errorf("GCM data too short: %d bytes", len(data))
	}
	salt := data[8:24]
	nonce := data[24:36]

	block, err := aes.NewCipher(deriveKey(password, salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	plaintext, err := gcm.Open(nil, nonce, data[36:], nil)
	if err != nil {
		return nil, fmt.Errorf("GCM decryption failed: %w", err)
	}
	return plaintext, nil
}
