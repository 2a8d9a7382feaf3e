package cmd

var (
	configPath        string
	naming            string
	downloadDirectory string
	exportFormat      string

	albumInput     string
	chapterNumbers string
	first          bool
	latest         bool
	withCover      bool
	openWhenDone   bool

	resolveAlbum   string
	resolveChapter string
	searchQuery    string
	searchPage     int
)

func initRootFlags() {
	rootCmd.PersistentFlags().StringVarP(
		&configPath,
		"config",
		"c",
		"",
		"specifies the path to your config file",
	)
}

func initDownloadFlags() {
	downloadCmd.Flags().StringVarP(
		&albumInput,
		"album",
		"a",
		"",
		"specifies the album you want to download, a \"JM\" prefix is accepted",
	)
	downloadCmd.Flags().StringVarP(
		&downloadDirectory,
		"downloadDirectory",
		"d",
		"",
		"overrides the download location from the config",
	)
	downloadCmd.Flags().StringVarP(
		&naming,
		"naming",
		"n",
		"",
		"overrides the naming template used for exported chapters",
	)
	downloadCmd.Flags().StringVarP(
		&exportFormat,
		"export",
		"e",
		"",
		"package finished chapters, either \"cbz\" or \"pdf\"",
	)

	downloadCmd.Flags().StringVarP(
		&chapterNumbers,
		"chapters",
		"C",
		"",
		"specifies the chapter numbers you want to download, e.g. \"1-3,7\"",
	)
	downloadCmd.Flags().BoolVarP(
		&first,
		"first",
		"1",
		false,
		"download the first chapter",
	)
	downloadCmd.Flags().BoolVarP(
		&latest,
		"latest",
		"L",
		false,
		"download the latest chapter",
	)

	downloadCmd.Flags().BoolVar(
		&withCover,
		"cover",
		false,
		"also download the album cover and thumbnail",
	)
	downloadCmd.Flags().BoolVarP(
		&openWhenDone,
		"open",
		"o",
		false,
		"open the album directory when the download finishes",
	)

	downloadCmd.MarkFlagsMutuallyExclusive("first", "chapters")
	downloadCmd.MarkFlagsMutuallyExclusive("latest", "chapters")
	downloadCmd.MarkFlagsMutuallyExclusive("first", "latest")

	_ = downloadCmd.MarkFlagRequired("album")
}

func initResolveFlags() {
	resolveCmd.Flags().StringVarP(
		&resolveAlbum,
		"album",
		"a",
		"",
		"resolve an album by id",
	)
	resolveCmd.Flags().StringVar(
		&resolveChapter,
		"chapter",
		"",
		"resolve a chapter by id",
	)
	resolveCmd.Flags().StringVarP(
		&searchQuery,
		"search",
		"s",
		"",
		"resolve a search query",
	)
	resolveCmd.Flags().IntVarP(
		&searchPage,
		"page",
		"p",
		1,
		"result page for searches",
	)

	resolveCmd.MarkFlagsMutuallyExclusive("album", "chapter", "search")
}
