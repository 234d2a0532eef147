package ton

// Transaction mirrors one element of a toncenter-style getTransactions
// result.
type Transaction struct {
	Utime         int64         `json:"utime"`
	TransactionID TransactionID `json:"transaction_id"`
	InMsg         *Message      `json:"in_msg"`
	OutMsgs       []Message     `json:"out_msgs"`
}

type TransactionID struct {
	LT   string `json:"lt"`
	Hash string `json:"hash"`
}

type Message struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`

	// Value is the attached native amount in nanotons.
	Value string `json:"value"`

	Message string      `json:"message"`
	MsgData MessageData `json:"msg_data"`
}

type MessageData struct {
	Type string `json:"@type"`

	// Body is the base64-encoded BOC of the message body.
	Body string `json:"body"`
	Text string `json:"text"`
}
