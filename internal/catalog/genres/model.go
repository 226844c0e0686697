package genres

// Genre は genres テーブルの1行を表す（書籍のジャンル参照データ）
type Genre struct {
	GenreID    int64  `json:"genre_id"`
	GenreName  string `json:"genre_name"`
	IsDisabled bool   `json:"is_disabled"`
}
