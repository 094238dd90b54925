package vm

// minDupStack/maxDupStack/minSwapStack/maxSwapStack compute a DUPn/SWAPn
// operation's stack-bounds metadata for the jump table: DUPn needs at least
// n items present and, like every push, cannot run within 1 of the 1024
// limit; SWAPn needs n+1 items and never changes stack depth.
func minDupStack(n int) int  { return n }
func maxDupStack(n int) int  { return maxStackDepth - 1 }
func minSwapStack(n int) int { return n + 1 }
func maxSwapStack(n int) int { return maxStackDepth }
