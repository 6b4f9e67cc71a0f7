package config

type Config struct {
	Debug    bool     `mapstructure:"debug"`
	Server   Server   `mapstructure:"server"`
	Identity Identity `mapstructure:"identity"`
	Catalog  Catalog  `mapstructure:"catalog"`
	Blobs    Blobs    `mapstructure:"blobs"`
}

type Server struct {
	Address   string       `mapstructure:"address" validate:"required,hostname|ip"`
	Port      int          `mapstructure:"port" validate:"required,min=1,max=65535"`
	PublicUrl string       `mapstructure:"public_url" validate:"required,url"`
	Limits    ServerLimits `mapstructure:"limits"`
}

type ServerLimits struct {
	// MaxFileSize caps a single uploaded blob, in bytes.
	MaxFileSize uint `mapstructure:"max_file_size" validate:"required"`
	// MaxMultipartMem caps in-memory multipart form buffering, in bytes.
	MaxMultipartMem uint `mapstructure:"max_multipart_mem" validate:"required"`
	// MaxConnections bounds concurrent client connections; 0 disables the limit.
	MaxConnections int `mapstructure:"max_connections" validate:"omitempty,min=1"`
}

type Identity struct {
	Endpoint string `mapstructure:"endpoint" validate:"required,url"`
}

type Catalog struct {
	Strategy string              `mapstructure:"strategy" validate:"required,oneof=memory sql d1"`
	SQL      *SQLCatalogStrategy `mapstructure:"sql" validate:"required_if=Strategy sql"`
	D1       *D1CatalogStrategy  `mapstructure:"d1" validate:"required_if=Strategy d1"`
}

type SQLCatalogStrategy struct {
	Driver      string  `mapstructure:"driver" validate:"required,oneof=postgres mysql"`
	DSN         string  `mapstructure:"dsn" validate:"required"`
	TablePrefix *string `mapstructure:"table_prefix" validate:"omitempty,identifier"`
}

type D1CatalogStrategy struct {
	AccountID   string  `mapstructure:"account_id" validate:"required"`
	DatabaseID  string  `mapstructure:"database_id" validate:"required"`
	APIToken    string  `mapstructure:"api_token" validate:"required"`
	Endpoint    string  `mapstructure:"endpoint" validate:"omitempty,url"`
	TablePrefix *string `mapstructure:"table_prefix" validate:"omitempty,identifier"`
}

type Blobs struct {
	Strategy   string                  `mapstructure:"strategy" validate:"required,oneof=filesystem bucket s3"`
	Filesystem *FilesystemBlobStrategy `mapstructure:"filesystem" validate:"required_if=Strategy filesystem"`
	Bucket     *BucketBlobStrategy     `mapstructure:"bucket" validate:"required_if=Strategy bucket"`
	S3         *S3BlobStrategy         `mapstructure:"s3" validate:"required_if=Strategy s3"`
}

type FilesystemBlobStrategy struct {
	Path string `mapstructure:"path" validate:"required,abspath"`
	// PathPattern overrides the default "{date}/{filename}" layout.
	PathPattern string `mapstructure:"path_pattern"`
}

type BucketBlobStrategy struct {
	Driver      string  `mapstructure:"driver" validate:"required,oneof=postgres mysql"`
	DSN         string  `mapstructure:"dsn" validate:"required"`
	TablePrefix *string `mapstructure:"table_prefix" validate:"omitempty,identifier"`
	// ChunkSize is the stored chunk length in bytes; 0 selects the default.
	ChunkSize int `mapstructure:"chunk_size" validate:"omitempty,min=4096"`
}

type S3BlobStrategy struct {
	Endpoint    string `mapstructure:"endpoint"`
	AccessKeyId string `mapstructure:"access_key_id" validate:"required"`
	SecretKeyId string `mapstructure:"secret_key_id" validate:"required"`
	Region      string `mapstructure:"region"`
	Bucket      string `mapstructure:"bucket" validate:"required"`
	Prefix      string `mapstructure:"prefix"`
	Insecure    bool   `mapstructure:"insecure"`
}
