package echo

// Request は POST /echo のリクエストボディ。送信ごとに input から作り直す。
type Request struct {
	Message string `json:"message"`
}

// Response は echo サービスの返答。
type Response struct {
	Message string `json:"message"`
}
