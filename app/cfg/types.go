package cfg

type Cfg struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Application configuration
	SourcesDir        string
	Port              string
	WorkerCount       int
	SchedulerInterval int
	RunTimeout        int
	APIAccessKey      string

	// Object storage configuration
	StorageBackend string
	StorageDir     string
	S3BucketPrefix string
	S3Region       string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
