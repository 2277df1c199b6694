package engine

import (
	"github.com/iWorld-y/weflow/internal/logger"
	dm "github.com/iWorld-y/weflow/internal/model"
)

// OtherTopic 分析结果缺少主题时使用
const OtherTopic = "Other"

// topicNames 分析主题到中文栏目名
var topicNames = map[string]string{
	"Generative AI":     "生成式 AI",
	"Robotics":          "机器人技术",
	"Hardware/Chips":    "芯片与硬件",
	"Industry/Business": "产业动态",
	"Programming/Dev":   "编程与开发",
	"Science/Research":  "科研前沿",
	"Agi/Safety":        "AGI 与安全",
	OtherTopic:          "其他",
}

// Cluster 同一栏目下的推荐文章
type Cluster struct {
	Topic    string
	Articles []*dm.Article
}

// TopicName 返回栏目名，未知主题原样返回
func TopicName(raw string) string {
	if name, ok := topicNames[raw]; ok {
		return name
	}
	return raw
}

// clusterArticles 按栏目分组推荐文章，栏目顺序为首次出现的顺序
func clusterArticles(articles []*dm.Article) []Cluster {
	var clusters []Cluster
	index := make(map[string]int)

	for _, a := range articles {
		if a.Analysis == nil {
			continue
		}
		if !a.Analysis.Recommended {
			logger.Log.Infof("跳过非推荐文章: %s (%s)", a.Title, a.Analysis.Reason)
			continue
		}

		raw := a.Analysis.Topic
		if raw == "" {
			raw = OtherTopic
		}
		topic := TopicName(raw)

		i, ok := index[topic]
		if !ok {
			i = len(clusters)
			index[topic] = i
			clusters = append(clusters, Cluster{Topic: topic})
		}
		clusters[i].Articles = append(clusters[i].Articles, a)
	}
	return clusters
}

func topicsOf(clusters []Cluster) []string {
	topics := make([]string, len(clusters))
	for i, c := range clusters {
		topics[i] = c.Topic
	}
	return topics
}
