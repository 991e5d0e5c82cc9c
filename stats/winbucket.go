package stats

import "sort"

// winBounds 贏倍邊界，配合 bucketLabels
//   - 區間: [0,0], (0,1), [1,2), [2,5), ..., [2000,10000), [10000, +inf)
var winBounds = [...]int64{0, 1, 2, 5, 10, 20, 50, 100, 300, 500, 1000, 2000, 10000}

var bucketLabels = [...]string{"[0,0]", "(0,1)", "[1,2)", "[2,5)", "[5,10)", "[10,20)", "[20,50)", "[50,100)", "[100,300)", "[300,500)", "[500,1000)", "[1000,2000)", "[2000,10000)", "[10000,+inf)"}

// BucketLabels 區間標籤，長度即分桶數
func BucketLabels() []string {
	return bucketLabels[:]
}

// BucketIndex 依押注把贏分放進贏倍區間
func BucketIndex(win, wager int64) int {
	if win <= 0 || wager <= 0 {
		return 0
	}
	// 第一個 bound*wager > win 的位置，即 <= win 的邊界數
	return sort.Search(len(winBounds), func(i int) bool {
		return winBounds[i]*wager > win
	})
}
