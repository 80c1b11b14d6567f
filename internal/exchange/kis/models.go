package kis

import "strconv"

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type baseResponse struct {
	ResultCode string `json:"rt_cd"`
	MsgCode    string `json:"msg_cd"`
	Msg        string `json:"msg1"`
}

type priceResponse struct {
	Output struct {
		Price string `json:"stck_prpr"`
	} `json:"output"`
}

type dailyChartResponse struct {
	Output1 struct {
		Name string `json:"hts_kor_isnm"`
	} `json:"output1"`
	Output2 []struct {
		Date   string `json:"stck_bsop_date"`
		Open   string `json:"stck_oprc"`
		High   string `json:"stck_hgpr"`
		Low    string `json:"stck_lwpr"`
		Close  string `json:"stck_clpr"`
		Volume string `json:"acml_vol"`
	} `json:"output2"`
}

type balanceResponse struct {
	Output1 []struct {
		Symbol   string `json:"pdno"`
		Name     string `json:"prdt_name"`
		Quantity string `json:"hldg_qty"`
		AvgPrice string `json:"pchs_avg_pric"`
	} `json:"output1"`
	Output2 []struct {
		Deposit   string `json:"dnca_tot_amt"`
		Available string `json:"prvs_rcdl_excc_amt"`
	} `json:"output2"`
}

type orderResponse struct {
	Output struct {
		OrgNo   string `json:"KRX_FWDG_ORD_ORGNO"`
		OrderNo string `json:"ODNO"`
		Time    string `json:"ORD_TMD"`
	} `json:"output"`
}

type executionsResponse struct {
	Output1 []struct {
		OrderNo   string `json:"odno"`
		OrderQty  string `json:"ord_qty"`
		FilledQty string `json:"tot_ccld_qty"`
		AvgPrice  string `json:"avg_prvs"`
		Cancelled string `json:"cncl_yn"`
		RemainQty string `json:"rmn_qty"`
	} `json:"output1"`
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
